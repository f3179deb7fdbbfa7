/*
Package log provides structured logging for forgecore using zerolog.

A single package-level Logger is configured once via Init and handed out
to components as component-scoped child loggers (WithComponent,
WithJobID, WithArtifactID, WithRegionID, WithNodeID, WithEntityID) so
every log line carries enough context to correlate with the subject it
describes, without passing a logger through every call.
*/
package log
