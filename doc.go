/*
Package pmguide is a dialogue engine that guides organisations through the
Privacy Mark (プライバシーマーク) certification process.

A message goes through one fixed pipeline: the session context is fetched (or
created), the text is classified into an intent by ordered keyword rules, the
intent handler answers from a static knowledge base, and the new context with
the user and assistant turns is committed back to the store. Messages for the
same session are serialized; different sessions run in parallel.

# Usage

	eng := pmguide.New(
		pmguide.WithKnowledgeFile("./knowledge/privacy_mark.yaml"),
	)

	resp, err := eng.Chat(ctx, sessionID, "", "申請の流れを教えてください")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(resp.Message)

Narration and progress are decoupled: asking about the application flow
describes the next step, while AdvanceStep commits it.

# Storage

Sessions live in memory unless WithStore injects a ports.ContextStore. The
module ships file, SQLite and Redis stores; the Redis adapter also provides a
distributed locker for multi-instance deployments (WithLocker).
*/
package pmguide
