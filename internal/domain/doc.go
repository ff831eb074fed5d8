// Package domain defines the core business entities of the thumbnail
// generation pipeline: titles, ideas, thumbnails and reference images,
// together with their validation rules and status transitions.
//
// Entities in this package are pure data. They perform no I/O; persistence
// and dispatch are the responsibility of the store and dispatcher packages.
package domain
