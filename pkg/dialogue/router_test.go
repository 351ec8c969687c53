package dialogue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/pmguide/pkg/dialogue"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(step string) *domain.ConversationContext {
	cc := domain.NewConversationContext("s1")
	cc.Progress.CurrentStep = step
	return cc
}

func TestProcess_AppendsTwoTurns(t *testing.T) {
	r := dialogue.NewRouter(knowledge.Default())
	cc := newContext(domain.StepInitial)

	res := r.Process(context.Background(), "申請の流れを教えて", cc)

	require.False(t, res.Faulted)
	require.NotNil(t, res.Context)
	assert.Empty(t, cc.History, "input context must not be mutated")
	require.Len(t, res.Context.History, 2)
	assert.Equal(t, domain.RoleUser, res.Context.History[0].Role)
	assert.Equal(t, "申請の流れを教えて", res.Context.History[0].Content)
	assert.Equal(t, domain.RoleAssistant, res.Context.History[1].Role)
	assert.Equal(t, res.Response.Message, res.Context.History[1].Content)
	assert.False(t, res.Context.History[1].Timestamp.Before(res.Context.History[0].Timestamp))
}

func TestProcess_TimestampsNeverGoBackwards(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	// The clock runs backwards on purpose.
	var mu sync.Mutex
	tick := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(-time.Duration(tick) * time.Second)
	}

	r := dialogue.NewRouter(knowledge.Default(), dialogue.WithClock(clock))
	cc := newContext(domain.StepInitial)
	cc.History = append(cc.History, domain.Turn{Role: domain.RoleSystem, Content: "start", Timestamp: base})

	res := r.Process(context.Background(), "hello", cc)
	require.Len(t, res.Context.History, 3)
	for i := 1; i < len(res.Context.History); i++ {
		assert.False(t, res.Context.History[i].Timestamp.Before(res.Context.History[i-1].Timestamp))
	}
}

func TestProcess_EmptyMessageReturnsMenu(t *testing.T) {
	r := dialogue.NewRouter(knowledge.Default())

	res := r.Process(context.Background(), "", newContext(domain.StepInitial))

	assert.Equal(t, domain.IntentGeneral, res.Classification.Intent)
	assert.Contains(t, res.Response.Message, "ご質問を承りました")
	assert.NotEmpty(t, res.Response.QuickReplies)
	assert.Len(t, res.Context.History, 2)
}

func TestProcess_NilContext(t *testing.T) {
	r := dialogue.NewRouter(knowledge.Default())
	res := r.Process(context.Background(), "hi", nil)
	require.False(t, res.Faulted)
	assert.Len(t, res.Context.History, 2)
}

func TestProcess_Faults(t *testing.T) {
	intents := []domain.Intent{
		domain.IntentApplicationFlow,
		domain.IntentDocumentInquiry,
		domain.IntentRequirementCheck,
		domain.IntentProgressStatus,
		domain.IntentFAQ,
		domain.IntentGeneral,
	}
	messages := map[domain.Intent]string{
		domain.IntentApplicationFlow:  "申請",
		domain.IntentDocumentInquiry:  "書類",
		domain.IntentRequirementCheck: "要件",
		domain.IntentProgressStatus:   "進捗",
		domain.IntentFAQ:              "費用はどう？",
		domain.IntentGeneral:          "hello",
	}

	faults := map[string]dialogue.Handler{
		"error": func(ctx context.Context, req *dialogue.Request) (*domain.ChatResponse, error) {
			return nil, errors.New("boom")
		},
		"panic": func(ctx context.Context, req *dialogue.Request) (*domain.ChatResponse, error) {
			req.Context.Progress.CurrentStep = "corrupted"
			panic("boom")
		},
		"nil response": func(ctx context.Context, req *dialogue.Request) (*domain.ChatResponse, error) {
			return nil, nil
		},
	}

	for _, i := range intents {
		for name, h := range faults {
			t.Run(string(i)+"/"+name, func(t *testing.T) {
				var faultEvents []*domain.FaultEvent
				hooks := domain.LifecycleHooks{
					OnFault: func(ctx context.Context, e *domain.FaultEvent) { faultEvents = append(faultEvents, e) },
				}
				r := dialogue.NewRouter(knowledge.Default(),
					dialogue.WithHandler(i, h),
					dialogue.WithLifecycleHooks(hooks),
				)
				cc := newContext("document_review")
				before := cc.Snapshot()

				res := r.Process(context.Background(), messages[i], cc)

				assert.True(t, res.Faulted)
				assert.Nil(t, res.Context)
				assert.Contains(t, res.Response.Message, "申し訳ございません")
				assert.NotEmpty(t, res.Response.Suggestions)
				assert.Equal(t, before, cc)
				require.Len(t, faultEvents, 1)
				assert.Equal(t, i, faultEvents[0].Intent)
				assert.Equal(t, "s1", faultEvents[0].SessionID)
			})
		}
	}
}

func TestProcess_FAQFallsThroughToGeneral(t *testing.T) {
	var lookups []*domain.FAQEvent
	r := dialogue.NewRouter(knowledge.Default(), dialogue.WithLifecycleHooks(domain.LifecycleHooks{
		OnFAQLookup: func(ctx context.Context, e *domain.FAQEvent) { lookups = append(lookups, e) },
	}))

	res := r.Process(context.Background(), "天気はどう？", newContext(domain.StepInitial))

	assert.Equal(t, domain.IntentFAQ, res.Classification.Intent)
	assert.False(t, res.Faulted)
	assert.Contains(t, res.Response.Message, "ご質問を承りました")
	require.Len(t, lookups, 1)
	assert.False(t, lookups[0].Hit)
}

func TestProcess_Hooks(t *testing.T) {
	var classified, responded []*domain.MessageEvent
	r := dialogue.NewRouter(knowledge.Default(), dialogue.WithLifecycleHooks(domain.LifecycleHooks{
		OnClassify: func(ctx context.Context, e *domain.MessageEvent) { classified = append(classified, e) },
		OnRespond:  func(ctx context.Context, e *domain.MessageEvent) { responded = append(responded, e) },
	}))

	r.Process(context.Background(), "書類の一覧", newContext(domain.StepInitial))

	require.Len(t, classified, 1)
	require.Len(t, responded, 1)
	assert.Equal(t, domain.IntentDocumentInquiry, classified[0].Intent)
	assert.InDelta(t, 0.9, classified[0].Confidence, 1e-9)
	assert.Equal(t, domain.EventRespond, responded[0].Type)
}

type fixedClassifier domain.Classification

func (f fixedClassifier) Classify(string) domain.Classification { return domain.Classification(f) }

func TestWithClassifier(t *testing.T) {
	r := dialogue.NewRouter(knowledge.Default(),
		dialogue.WithClassifier(fixedClassifier{Intent: domain.IntentRequirementCheck, Confidence: 1}))

	res := r.Process(context.Background(), "hello", newContext(domain.StepInitial))
	assert.Equal(t, domain.IntentRequirementCheck, res.Classification.Intent)
	assert.Contains(t, res.Response.Message, "チェックリスト")
}

func TestProcess_ConcurrentDistinctContexts(t *testing.T) {
	r := dialogue.NewRouter(knowledge.Default())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cc := domain.NewConversationContext("s")
			res := r.Process(context.Background(), "進捗", cc)
			assert.Len(t, res.Context.History, 2)
		}()
	}
	wg.Wait()
}
