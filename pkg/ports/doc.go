/*
Package ports defines the driven ports (interfaces) for the pmguide engine.

These interfaces decouple the dialogue core from external implementations, allowing
the engine to work with various storage backends and document sources.

# Key Interfaces

  - ContextStore: Responsible for persisting and loading ConversationContext per session.
  - ProgressStore: Responsible for per-user certification progress and tasks.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
  - TemplateSource: Resolves the downloadable file behind a document template.
*/
package ports
