/*
Package artifactstore owns the Artifact entity: content-addressed
(SHA-256), bounded by per-job count, per-blob size, and global size
caps, with oldest-first eviction and TTL-based expiry.

Store.Store is the only mutator that accepts raw content; every reader
(Get aside) returns ArtifactMetadata, never the underlying bytes, so
callers cannot mutate stored content by reference.
*/
package artifactstore
