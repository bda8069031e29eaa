package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/starfederation/datastar-go/datastar"

	"datapulse/internal/analytics"
	"datapulse/internal/dataset"
	"datapulse/internal/respond"
)

const maxTableRows = 50

var chatMessageTemplate = template.Must(template.New("chatMessage").Parse(`
<div id="chat-messages">
<div class="chat-message user" id="msg-{{.ID}}-q">{{.Query}}</div>
<div class="chat-message assistant" id="msg-{{.ID}}-a">
<div class="message-content">{{.Content}}</div>
{{range .Tables}}<table class="result-table">
<caption>{{.Title}}</caption>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>{{end}}
{{if .Insight}}<div class="insight">{{.Insight}}</div>{{end}}
</div>
</div>`))

var summaryTemplate = template.Must(template.New("summaryPanel").Parse(`
<div id="summary-content">
<div class="stat"><span>Total Orders</span><strong>{{.TotalOrders}}</strong></div>
<div class="stat"><span>Revenue</span><strong>{{.Revenue}}</strong></div>
<div class="stat"><span>RTO Rate</span><strong>{{.RTORate}}</strong></div>
<div class="stat"><span>Datasets</span><strong>{{.Datasets}}</strong></div>
</div>`))

// SSEHandlers streams chat answers and dashboard refreshes as datastar
// patches.
type SSEHandlers struct {
	assembler *respond.Assembler
	analyzer  *analytics.Analyzer
	store     *dataset.Store
	logger    *slog.Logger
}

func NewSSEHandlers(assembler *respond.Assembler, analyzer *analytics.Analyzer, store *dataset.Store, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		assembler: assembler,
		analyzer:  analyzer,
		store:     store,
		logger:    logger,
	}
}

type chatMessage struct {
	ID      string
	Query   string
	Content string
	Tables  []respond.Table
	Insight string
}

func (h *SSEHandlers) renderChatMessage(query string, resp *respond.Response) (string, error) {
	var buf strings.Builder

	tables := resp.Tables
	for i, t := range tables {
		if len(t.Rows) > maxTableRows {
			tables[i].Rows = t.Rows[:maxTableRows]
		}
	}

	msg := chatMessage{
		ID:      uuid.NewString(),
		Query:   query,
		Content: resp.Content,
		Tables:  tables,
		Insight: resp.Insight,
	}
	err := chatMessageTemplate.Execute(&buf, msg)
	return buf.String(), err
}

// HandleChat answers the "query" parameter and patches the chat log plus
// any chart signals.
func (h *SSEHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		sse.PatchElements(`<div id="chat-messages"><div class="chat-message assistant">Ask me something about your store.</div></div>`)
		return
	}

	resp := h.assembler.Answer(query)

	html, err := h.renderChatMessage(query, resp)
	if err != nil {
		h.logger.Error("render chat message", "error", err)
		return
	}
	sse.PatchElements(html)

	if resp.ChartData != nil {
		jsonData, err := json.Marshal(map[string]any{
			"chartData": resp.ChartData,
			"chartType": resp.ChartType,
		})
		if err != nil {
			h.logger.Error("marshal chart data", "error", err)
			return
		}
		sse.PatchSignals(jsonData)
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleSummary refreshes the dashboard summary panel.
func (h *SSEHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	panel := struct {
		TotalOrders int
		Revenue     string
		RTORate     string
		Datasets    int
	}{
		Revenue:  respond.FormatINR(0),
		RTORate:  respond.FormatPercent(0),
		Datasets: len(h.store.List()),
	}

	if res, err := h.analyzer.Summary(); err == nil {
		panel.TotalOrders = res.TotalOrders
		panel.Revenue = respond.FormatINR(res.Revenue)
		panel.RTORate = respond.FormatPercent(res.RTORate)

		if len(res.StatusCounts) > 0 {
			series := map[string]any{"labels": []string{}, "values": []float64{}}
			labels := make([]string, 0, len(res.StatusCounts))
			values := make([]float64, 0, len(res.StatusCounts))
			for _, g := range res.StatusCounts {
				labels = append(labels, g.Key)
				values = append(values, float64(g.Count))
			}
			series["labels"], series["values"] = labels, values
			if jsonData, err := json.Marshal(map[string]any{"statusChart": series}); err == nil {
				sse.PatchSignals(jsonData)
			}
		}
	}

	var buf strings.Builder
	if err := summaryTemplate.Execute(&buf, panel); err != nil {
		h.logger.Error("render summary panel", "error", err)
		return
	}
	sse.PatchElements(buf.String())

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
