// Package models contains GORM persistence models for the order tables read
// by the invoice generator. They stay separate from the domain aggregate so
// that the domain package carries no ORM tags.
package models
