package knowledge

import "github.com/aretw0/pmguide/pkg/domain"

// DefaultCorpus returns the built-in certification corpus.
// Each call returns a fresh value.
func DefaultCorpus() Corpus {
	return Corpus{
		Steps: []domain.ApplicationStep{
			{
				ID:                "preparation",
				Name:              "事前準備",
				Description:       "JIS Q 15001:2023に準拠した個人情報保護マネジメントシステム（PMS）を構築し、PDCAサイクルを最低1回実施します。",
				RequiredDocuments: []string{"個人情報保護方針", "内部規程", "手順書"},
				EstimatedDuration: "3-6ヶ月",
				NextSteps:         []string{"document_preparation"},
				Tips: []string{
					"全従業者への教育を忘れずに実施してください",
					"内部監査は全部門を対象に実施する必要があります",
					"マネジメントレビューには経営層の参加が必須です",
				},
			},
			{
				ID:                "document_preparation",
				Name:              "申請書類準備",
				Description:       "申請に必要な各種書類を準備し、記入漏れや不備がないか確認します。",
				RequiredDocuments: []string{"申請様式1-8", "登記事項証明書", "定款", "教育記録", "内部監査記録"},
				EstimatedDuration: "2-4週間",
				NextSteps:         []string{"submission"},
				Tips: []string{
					"書類はコピーを提出し、原本は保管してください",
					"記載内容の整合性を必ず確認してください",
				},
			},
			{
				ID:                "submission",
				Name:              "申請書提出",
				Description:       "オンラインまたは郵送で申請書類を提出します。",
				RequiredDocuments: []string{"全申請書類一式"},
				EstimatedDuration: "1日",
				NextSteps:         []string{"document_review"},
				Tips: []string{
					"オンライン申請の方が処理が早い傾向があります",
					"郵送の場合は配達記録が残る方法を選んでください",
				},
			},
			{
				ID:                "document_review",
				Name:              "文書審査",
				Description:       "提出書類の内容が審査基準に適合しているか審査されます。",
				RequiredDocuments: []string{},
				EstimatedDuration: "3-4週間",
				NextSteps:         []string{"onsite_audit"},
				Tips: []string{
					"追加資料を求められた場合は迅速に対応してください",
					"質問には正確かつ具体的に回答してください",
				},
			},
			{
				ID:                "onsite_audit",
				Name:              "現地審査",
				Description:       "審査員が事業所を訪問し、実際の運用状況を確認します。",
				RequiredDocuments: []string{"運用記録", "最新のPMS文書"},
				EstimatedDuration: "1-2日",
				NextSteps:         []string{"result_notification"},
				Tips: []string{
					"従業者への事前周知を行ってください",
					"審査当日は経営層の同席が必要です",
					"現場の実態と文書の内容が一致しているか確認してください",
				},
			},
			{
				ID:                "result_notification",
				Name:              "審査結果通知",
				Description:       "審査結果が通知されます。指摘事項がある場合は期限内に改善報告書を提出します。",
				RequiredDocuments: []string{"改善報告書（指摘事項がある場合）"},
				EstimatedDuration: "2-4週間",
				NextSteps:         []string{"contract_conclusion"},
				Tips: []string{
					"指摘事項への改善報告は期限内に提出してください",
					"改善内容は記録として保管してください",
				},
			},
			{
				ID:                "contract_conclusion",
				Name:              "付与契約締結",
				Description:       "プライバシーマーク付与契約を締結し、付与登録料を支払うとプライバシーマークを使用できるようになります。",
				RequiredDocuments: []string{"付与契約書"},
				EstimatedDuration: "1-2週間",
				NextSteps:         []string{},
				Tips: []string{
					"マークの使用ルールを確認してください",
					"有効期間（2年間）と更新時期を管理してください",
				},
			},
		},
		Templates: []domain.DocumentTemplate{
			{
				ID:             "form-1",
				Name:           "プライバシーマーク付与適格性審査申請書",
				Description:    "申請の基本情報を記載する書類",
				Category:       "申請書類",
				Format:         "Word",
				RequiredFields: []string{"法人名", "代表者名", "所在地", "事業内容", "従業者数"},
				DownloadURL:    "/api/v1/documents/form-1/download",
			},
			{
				ID:             "form-4",
				Name:           "個人情報を取扱う業務の概要",
				Description:    "取扱う個人情報と業務の流れを記載する書類",
				Category:       "申請書類",
				Format:         "Word",
				RequiredFields: []string{"業務名", "個人情報の種類", "取得方法", "保管方法"},
				DownloadURL:    "/api/v1/documents/form-4/download",
			},
			{
				ID:             "form-5",
				Name:           "すべての事業所の所在地及び業務内容",
				Description:    "申請範囲に含まれる事業所の一覧",
				Category:       "申請書類",
				Format:         "Excel",
				RequiredFields: []string{"事業所名", "所在地", "従業者数", "業務内容"},
				DownloadURL:    "/api/v1/documents/form-5/download",
			},
			{
				ID:             "form-6",
				Name:           "個人情報保護マネジメントシステム文書の一覧",
				Description:    "PMS文書と運用記録の一覧",
				Category:       "運用記録",
				Format:         "Excel",
				RequiredFields: []string{"文書名", "JIS Q 15001の該当項番", "制定日", "改訂日"},
				DownloadURL:    "/api/v1/documents/form-6/download",
			},
			{
				ID:             "form-7",
				Name:           "教育実施サマリー",
				Description:    "全従業者への教育実施状況を報告する書類",
				Category:       "教育記録",
				Format:         "Word",
				RequiredFields: []string{"教育実施日", "教育内容", "受講者リスト", "教育資料", "理解度確認結果"},
				DownloadURL:    "/api/v1/documents/form-7/download",
			},
			{
				ID:             "form-8",
				Name:           "内部監査・マネジメントレビュー実施サマリー",
				Description:    "内部監査の実施状況と結果を報告する書類",
				Category:       "監査記録",
				Format:         "Word",
				RequiredFields: []string{"監査実施日", "監査対象部門", "監査員", "指摘事項", "改善状況"},
				DownloadURL:    "/api/v1/documents/form-8/download",
			},
		},
		FAQs: []domain.FAQ{
			{
				ID:               "faq_001",
				Question:         "プライバシーマーク取得にかかる期間はどれくらいですか？",
				Answer:           "準備から認証取得まで、一般的に6ヶ月から1年程度かかります。準備段階でPMS構築とPDCAサイクルの実施に3-6ヶ月、申請から認証まで2-4ヶ月が目安です。",
				Category:         "期間",
				Keywords:         []string{"期間", "時間", "スケジュール"},
				RelatedQuestions: []string{"費用はどれくらいかかりますか？"},
			},
			{
				ID:               "faq_002",
				Question:         "プライバシーマーク取得の費用はどれくらいですか？",
				Answer:           "事業規模により異なりますが、小規模事業者（従業者5名以下）で約20万円、中規模（30名以下）で約50万円、大規模（30名超）で約100万円以上が目安です。これには申請料、審査料、付与登録料が含まれます。",
				Category:         "費用",
				Keywords:         []string{"費用", "料金", "金額", "コスト"},
				RelatedQuestions: []string{"支払いタイミングはいつですか？"},
			},
			{
				ID:               "faq_003",
				Question:         "PMSとは何ですか？",
				Answer:           "個人情報保護マネジメントシステム（Personal information protection Management System）の略称です。JIS Q 15001に基づき、組織が個人情報を適切に管理するための仕組みです。方針、体制、計画、実施、点検、改善のPDCAサイクルで構成されます。",
				Category:         "用語",
				Keywords:         []string{"PMS", "マネジメントシステム", "個人情報保護"},
				RelatedQuestions: []string{"PDCAサイクルとは何ですか？"},
			},
			{
				ID:               "faq_004",
				Question:         "更新はどのくらいの頻度で必要ですか？",
				Answer:           "プライバシーマークの有効期間は2年間です。更新申請は有効期間満了の8ヶ月前から4ヶ月前までの間に行う必要があります。",
				Category:         "更新",
				Keywords:         []string{"更新", "有効期間", "期限"},
				RelatedQuestions: []string{"更新費用はいくらですか？"},
			},
		},
		TotalDuration: "6-12ヶ月",
		CriticalPoints: []string{
			"PDCAサイクルを最低1回実施済みであること",
			"全従業者への教育が完了していること",
			"全部門の内部監査が完了していること",
		},
		Requirements: Requirements{
			Basic: []string{
				"日本国内に事業拠点があること",
				"法人単位での申請であること",
				"JIS Q 15001:2023準拠のPMS構築",
				"PDCAサイクル1回以上実施",
			},
			Documentation: []string{
				"個人情報保護方針の策定",
				"内部規程の整備",
				"運用記録の保管",
				"教育記録の保管",
				"監査記録の保管",
			},
		},
		Categories: []string{"申請書類", "運用記録", "監査記録", "教育記録"},
	}
}

// Default returns a Base built from the built-in corpus.
func Default() *Base {
	b, err := build(DefaultCorpus(), SourceBuiltin)
	if err != nil {
		// The built-in corpus is covered by tests; failing here is a programming error.
		panic(err)
	}
	return b
}
