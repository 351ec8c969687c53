/*
Package session implements conversation context management and persistence orchestration.

It serializes access to one session at a time, in-process through reference-counted
per-session mutexes and across replicas through an optional distributed locker,
so that read-modify-write cycles on a ConversationContext never lose updates.
*/
package session
