// Package store provides abstractions for task persistence: the BlobStore
// contract over the durability boundary, the TaskStore repository contract
// consumed by the service layer, and the shared error taxonomy.
package store
