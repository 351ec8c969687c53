package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/knowledge"
)

const onboardingMessage = `プライバシーマーク取得の申請フローについてご案内します。

**申請の主要ステップ:**
1. 事前準備（PMS構築・PDCAサイクル実施）
2. 申請書類の準備
3. 申請書の提出
4. 文書審査
5. 現地審査
6. 審査結果通知
7. 付与契約締結

まずは、貴社の現在の準備状況を確認させてください。
個人情報保護マネジメントシステム（PMS）は既に構築されていますか？`

const generalMessage = `ご質問を承りました。プライバシーマークに関する以下の情報から選択いただくか、具体的な質問をお聞かせください。

• 申請手続きの流れ
• 必要書類について
• 審査基準と要件
• 費用について
• よくある質問（FAQ）`

const errorMessage = "申し訳ございません。処理中にエラーが発生しました。もう一度お試しください。"

var (
	onboardingReplies = []string{
		"PMSは構築済みです",
		"PMSを構築中です",
		"PMSはこれから構築予定です",
		"PMSについて詳しく知りたい",
	}
	documentReplies = []string{
		"申請書の記入方法",
		"教育実施サマリーの作成方法",
		"内部監査記録の準備",
		"書類のテンプレート",
	}
	generalReplies = []string{
		"申請手続きを知りたい",
		"必要書類を確認したい",
		"費用を知りたい",
		"FAQを見る",
	}
	errorSuggestions = []string{"最初から始める", "サポートに連絡"}
)

// ErrorResponse is the apology returned when a handler fails.
func ErrorResponse() *domain.ChatResponse {
	resp := domain.NewChatResponse(errorMessage)
	resp.Suggestions = append(resp.Suggestions, errorSuggestions...)
	return resp
}

// ApplicationFlow onboards sessions in the initial state and otherwise
// narrates the step after the current one.
func ApplicationFlow(ctx context.Context, req *Request) (*domain.ChatResponse, error) {
	current := req.Context.Progress.CurrentStep
	if current == "" || current == domain.StepInitial {
		resp := domain.NewChatResponse(onboardingMessage)
		resp.QuickReplies = append(resp.QuickReplies, onboardingReplies...)
		return resp, nil
	}

	info := req.Knowledge.NextStep(current)
	if info.Overview != nil {
		resp := domain.NewChatResponse(renderOverview(*info.Overview))
		resp.QuickReplies = append(resp.QuickReplies, onboardingReplies...)
		return resp, nil
	}

	resp := domain.NewChatResponse(info.Description)
	resp.Suggestions = append(resp.Suggestions, info.Actions...)
	return resp, nil
}

func renderOverview(o knowledge.FlowOverview) string {
	var b strings.Builder
	b.WriteString("プライバシーマーク取得の全体の流れをご案内します。\n\n**申請の主要ステップ:**\n")
	for i, s := range o.Steps {
		fmt.Fprintf(&b, "%d. %s（%s）\n", i+1, s.Name, s.EstimatedDuration)
	}
	if o.TotalDuration != "" {
		fmt.Fprintf(&b, "\n**全体の所要期間:** %s\n", o.TotalDuration)
	}
	if len(o.CriticalPoints) > 0 {
		b.WriteString("\n**重要なポイント:**\n")
		for _, p := range o.CriticalPoints {
			fmt.Fprintf(&b, "• %s\n", p)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// DocumentInquiry lists the application forms with their downloads.
func DocumentInquiry(ctx context.Context, req *Request) (*domain.ChatResponse, error) {
	info := req.Knowledge.DocumentInfo()

	var b strings.Builder
	b.WriteString("プライバシーマーク申請に必要な書類についてご案内します。\n\n**新規申請の必要書類:**\n")
	for i, t := range info.Templates {
		fmt.Fprintf(&b, "%d. %s（%s）\n", i+1, t.Name, formLabel(t.ID))
	}
	b.WriteString("\nその他、登記事項証明書、定款、個人情報保護方針などが必要です。\n\nどの書類について詳しく知りたいですか？")

	resp := domain.NewChatResponse(b.String())
	for _, t := range info.Templates {
		if t.DownloadURL == "" {
			continue
		}
		resp.Attachments = append(resp.Attachments, domain.Attachment{
			Type:        domain.AttachmentDocument,
			Name:        t.Name,
			URL:         t.DownloadURL,
			Description: t.Description,
		})
	}
	resp.QuickReplies = append(resp.QuickReplies, documentReplies...)
	return resp, nil
}

// formLabel turns "form-7" into "申請様式7".
func formLabel(id string) string {
	if n, ok := strings.CutPrefix(id, "form-"); ok && n != "" {
		return "申請様式" + n
	}
	return id
}

// RequirementCheck shows the eligibility checklist.
func RequirementCheck(ctx context.Context, req *Request) (*domain.ChatResponse, error) {
	reqs := req.Knowledge.Requirements()

	var b strings.Builder
	b.WriteString("プライバシーマーク取得の要件を確認します。\n\n**基本要件チェックリスト:**\n")
	for _, item := range reqs.Basic {
		fmt.Fprintf(&b, "✅ %s\n", item)
	}
	if len(reqs.Documentation) > 0 {
		b.WriteString("\n**文書・記録の要件:**\n")
		for _, item := range reqs.Documentation {
			fmt.Fprintf(&b, "✅ %s\n", item)
		}
	}
	b.WriteString("\nこれらの要件について、現在の状況を教えてください。")

	resp := domain.NewChatResponse(b.String())
	resp.Suggestions = append(resp.Suggestions, "要件診断を開始")
	return resp, nil
}

// ProgressStatus reports the session progress counts.
func ProgressStatus(ctx context.Context, req *Request) (*domain.ChatResponse, error) {
	p := req.Context.Progress
	current := p.CurrentStep
	if step, ok := req.Knowledge.Step(current); ok {
		current = step.Name
	}

	msg := fmt.Sprintf(`現在の申請準備状況をお伝えします。

**完了済みタスク:** %d件
**現在のステップ:** %s
**残りのタスク:** %d件

詳細な進捗レポートを確認しますか？`, len(p.CompletedSteps), current, len(p.RemainingTasks))

	resp := domain.NewChatResponse(msg)
	resp.Suggestions = append(resp.Suggestions, "詳細レポート表示", "タスクリスト確認")
	return resp, nil
}

// FAQ answers from the knowledge base and returns ErrNotHandled on a miss.
func FAQ(ctx context.Context, req *Request) (*domain.ChatResponse, error) {
	faq, ok := req.SearchFAQ(ctx, req.Message)
	if !ok {
		return nil, ErrNotHandled
	}
	resp := domain.NewChatResponse(faq.Answer)
	resp.Suggestions = append(resp.Suggestions, faq.RelatedQuestions...)
	return resp, nil
}

// General returns the top level menu. It never fails.
func General(ctx context.Context, req *Request) (*domain.ChatResponse, error) {
	resp := domain.NewChatResponse(generalMessage)
	resp.QuickReplies = append(resp.QuickReplies, generalReplies...)
	return resp, nil
}
