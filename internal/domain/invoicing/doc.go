// Package invoicing contains the Invoicing bounded context.
// It defines the resolved order aggregate that invoice documents are
// generated from, the money helpers used to total line items in integer
// minor units, and the repository contract used to resolve orders.
package invoicing
