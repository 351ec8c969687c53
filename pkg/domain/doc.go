/*
Package domain contains the core domain models of the certification guide.

It defines the conversational state kept per session, the typed records of the
knowledge corpus, and the structured response produced by the dialogue engine.
This package is kept pure and free of I/O or persistence concerns.

# Key Entities

  - ConversationContext: per-session state (history, progress, preferences).
  - Progress: the position of the applicant within the certification step chain.
  - ApplicationStep, DocumentTemplate, FAQ: immutable knowledge records.
  - ChatResponse: the structured reply (text, suggestions, attachments, quick replies).
*/
package domain
