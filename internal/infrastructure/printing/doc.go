// Package printing provides the invoice PDF engine.
//
// This package contains:
// - Truncate/TruncateStrict for fitting text to a column using core font metrics
// - ImageEmbedder for fetching product images and turning them into rasters, or placeholders
// - Canvas, a single-page drawing surface backed by fpdf with a bottom-left origin
// - DocumentBuilder, which lays out header boxes, the line-item table and totals
// - Encode/EncodeBase64 for serializing the page and preparing it for transport
// - ArchiveStorage implementations for keeping copies of generated invoices
//
// Example usage:
//
//	builder := NewDocumentBuilder(&DocumentBuilderConfig{
//	    Layout:            DefaultInvoiceLayout(),
//	    GenerationTimeout: 30 * time.Second,
//	    Logger:            logger,
//	})
//
//	doc, err := builder.Generate(ctx, order)
//	if err != nil {
//	    return err
//	}
//
//	fmt.Printf("Generated invoice: %d bytes, %d rows\n", doc.Size(), doc.Rows())
package printing
