// Package portfolio persists customers, assets, upload batches, holdings and
// the rollups derived from them.
//
// Repositories are bound to a database.Queryer. WithTx returns a copy bound
// to a transaction so the ingestion pipeline can write every entity inside a
// single unit of work.
package portfolio
