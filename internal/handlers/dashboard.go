package handlers

import "net/http"

// Minimal shell page. Datastar drives the chat and summary panels over
// SSE; the heavy lifting is all server side.
const dashboardPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DataPulse</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@main/bundles/datastar.js"></script>
</head>
<body>
<header><h1>DataPulse</h1></header>
<main data-signals="{query: '', chartData: null, chartType: '', statusChart: null}">
<section id="summary-content" data-on-load="@get('/sse/summary')">Loading summary…</section>
<section>
<div id="chat-messages"></div>
<form data-on-submit="@get('/sse/chat?query=' + encodeURIComponent($query)); $query = ''">
<input type="text" data-bind-query placeholder="Ask about revenue, RTO, top products…" autofocus>
<button type="submit">Ask</button>
</form>
</section>
</main>
</body>
</html>`

func HandleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write([]byte(dashboardPage))
}
