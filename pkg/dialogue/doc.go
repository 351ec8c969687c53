/*
Package dialogue turns a classified user message into a ChatResponse.

A Router owns one Handler per intent. Process classifies the message, dispatches
it, and returns the next conversation context with the user and assistant turns
appended. Handler errors and panics are caught at the Router boundary and
replaced by a fixed apology; in that case no next context is returned, so the
caller keeps the session unchanged.

Handlers only read the knowledge base and a snapshot of the context. Progress
is never committed here: the application flow handler narrates the next step
and leaves Progress.CurrentStep alone.
*/
package dialogue
