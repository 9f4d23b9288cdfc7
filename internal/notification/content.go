package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/spec-kit/request-checker/internal/dateutil"
	"github.com/spec-kit/request-checker/internal/domain"
)

// Content is a rendered message ready for any channel.
type Content struct {
	Subject string
	Text    string
	HTML    string
}

const productName = "依頼チェッカー"

type reminderLine struct {
	CustomerName string
	Description  string
	Deadline     string
}

type reminderView struct {
	Product       string
	RecipientName string
	Count         int
	Tickets       []reminderLine
}

var reminderText = texttemplate.Must(texttemplate.New("reminder_text").Parse(
	`{{.RecipientName}} 様

以下のチケットが期限を超過しています。
早急にご対応をお願いいたします。

【期限超過チケット一覧】
{{range $i, $t := .Tickets}}{{if $i}}
{{end}}・{{$t.CustomerName}} - {{$t.Description}} (期限: {{$t.Deadline}}){{end}}

---
{{.Product}}`))

var reminderHTML = htmltemplate.Must(htmltemplate.New("reminder_html").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <style>
    body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #6366f1; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
    .content { background: #f8fafc; padding: 20px; border: 1px solid #e2e8f0; }
    .alert { background: #fef2f2; border: 1px solid #fecaca; color: #dc2626; padding: 10px; border-radius: 4px; }
    .footer { background: #1e293b; color: #94a3b8; padding: 15px; text-align: center; font-size: 12px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h1 style="margin: 0; font-size: 20px;">{{.Product}}</h1><p style="margin: 5px 0 0 0;">期限超過通知</p></div>
    <div class="content">
      <p>{{.RecipientName}} 様</p>
      <div class="alert"><strong>{{.Count}}件のチケットが期限を超過しています</strong></div>
      <p>以下のチケットについて、早急なご対応をお願いいたします。</p>
      <ul>
{{- range .Tickets}}
        <li><strong>{{.CustomerName}}</strong> - {{.Description}} (期限: {{.Deadline}})</li>
{{- end}}
      </ul>
    </div>
    <div class="footer">{{.Product}}｜このメールは自動送信されています</div>
  </div>
</body>
</html>`))

// OverdueReminder renders the daily digest for one assignee. Ticket order is
// kept as given.
func OverdueReminder(recipientName string, tickets []domain.Ticket) (Content, error) {
	view := reminderView{
		Product:       productName,
		RecipientName: recipientName,
		Count:         len(tickets),
		Tickets:       make([]reminderLine, 0, len(tickets)),
	}
	for _, t := range tickets {
		view.Tickets = append(view.Tickets, reminderLine{
			CustomerName: t.CustomerName,
			Description:  t.Description,
			Deadline:     dateutil.FormatDate(t.Deadline),
		})
	}

	text, html, err := render(reminderText, reminderHTML, view)
	if err != nil {
		return Content{}, err
	}
	return Content{
		Subject: fmt.Sprintf("【要対応】期限超過チケットのお知らせ (%d件)", len(tickets)),
		Text:    text,
		HTML:    html,
	}, nil
}

type statusView struct {
	Product      string
	CustomerName string
	TypeLabel    string
	Deadline     string
	StatusLabel  string
	UpdaterName  string
	Comment      string
}

var statusText = texttemplate.Must(texttemplate.New("status_text").Parse(
	`チケットのステータスが更新されました

お客様名: {{.CustomerName}}
種別: {{.TypeLabel}}
期日: {{.Deadline}}
新しいステータス: {{.StatusLabel}}
更新者: {{.UpdaterName}}
{{- if .Comment}}
コメント: {{.Comment}}{{end}}

詳細は{{.Product}}で確認してください。`))

var statusHTML = htmltemplate.Must(htmltemplate.New("status_html").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">チケットのステータスが更新されました</h2>
  <div style="background: #f5f5f5; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <p><strong>お客様名:</strong> {{.CustomerName}}</p>
    <p><strong>種別:</strong> {{.TypeLabel}}</p>
    <p><strong>期日:</strong> {{.Deadline}}</p>
    <p><strong>新しいステータス:</strong> <span style="color: #7c3aed; font-weight: bold;">{{.StatusLabel}}</span></p>
    <p><strong>更新者:</strong> {{.UpdaterName}}</p>
{{- if .Comment}}
    <p><strong>コメント:</strong> {{.Comment}}</p>
{{- end}}
  </div>
  <p>詳細は{{.Product}}で確認してください。</p>
</div>`))

// StatusChangeNotice renders the message sent to a ticket's creator. An
// empty comment omits the comment line.
func StatusChangeNotice(ticket *domain.Ticket, newStatus domain.TicketStatus, updaterName, comment string) (Content, error) {
	view := statusView{
		Product:      productName,
		CustomerName: ticket.CustomerName,
		TypeLabel:    ticket.Type.Label(),
		Deadline:     dateutil.FormatDate(ticket.Deadline),
		StatusLabel:  newStatus.Label(),
		UpdaterName:  updaterName,
		Comment:      strings.TrimSpace(comment),
	}

	text, html, err := render(statusText, statusHTML, view)
	if err != nil {
		return Content{}, err
	}
	return Content{
		Subject: fmt.Sprintf("【ステータス更新】%s - %s", ticket.CustomerName, view.TypeLabel),
		Text:    text,
		HTML:    html,
	}, nil
}

func render(text *texttemplate.Template, html *htmltemplate.Template, data any) (string, string, error) {
	var textBuf, htmlBuf bytes.Buffer
	if err := text.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", text.Name(), err)
	}
	if err := html.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", html.Name(), err)
	}
	return textBuf.String(), htmlBuf.String(), nil
}
