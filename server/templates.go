package server

import (
	"html/template"
	"net/http"

	"cliptone/logger"
)

// editorData is what the editor page needs to render and to sign its own
// follow-up requests.
type editorData struct {
	Title       string
	DurationStr string
	AudioURL    string
	SID         string
	TrimSig     string
	CancelSig   string
}

func renderTemplate(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		logger.Debug("template render failed", logger.ErrorField(err))
	}
}

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>cliptone</title></head>
<body>
<h1>cliptone</h1>
<ul>
  <li><a href="/youtube">Convert from a link</a></li>
  <li><a href="/upload">Upload a file</a></li>
</ul>
</body>
</html>`))

var youtubeTemplate = template.Must(template.New("youtube").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>cliptone - from link</title></head>
<body>
<h1>Convert from a link</h1>
<form id="prepare-form">
  <input type="url" name="url" id="url" placeholder="https://www.youtube.com/watch?v=..." size="60" required>
  <button type="submit">Convert</button>
</form>
<div id="status" hidden>
  <progress id="bar" max="100" value="0"></progress>
  <span id="message"></span>
</div>
<script>
document.getElementById('prepare-form').addEventListener('submit', async function (ev) {
  ev.preventDefault();
  const status = document.getElementById('status');
  const bar = document.getElementById('bar');
  const message = document.getElementById('message');
  status.hidden = false;
  message.textContent = 'starting...';

  const body = new URLSearchParams({url: document.getElementById('url').value});
  const resp = await fetch('/prepare', {method: 'POST', body: body});
  const data = await resp.json();
  if (!resp.ok) {
    message.textContent = data.error || 'request failed';
    return;
  }

  const es = new EventSource('/progress/' + data.session_id);
  es.addEventListener('progress', function (e) {
    const p = JSON.parse(e.data);
    bar.value = p.progress;
    message.textContent = p.message;
  });
  es.addEventListener('complete', function (e) {
    es.close();
    window.location = JSON.parse(e.data).editor_url;
  });
  es.addEventListener('error_event', function (e) {
    es.close();
    message.textContent = JSON.parse(e.data).error;
  });
});
</script>
</body>
</html>`))

var uploadTemplate = template.Must(template.New("upload").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>cliptone - upload</title></head>
<body>
<h1>Upload a file</h1>
<form method="post" action="/upload" enctype="multipart/form-data">
  <input type="file" name="file" accept="audio/*,video/*" required>
  <button type="submit">Convert</button>
</form>
</body>
</html>`))

var editorTemplate = template.Must(template.New("editor").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>cliptone - {{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>Duration: {{.DurationStr}}</p>
<audio controls preload="metadata" src="{{.AudioURL}}"></audio>
<form method="post" action="/trim">
  <input type="hidden" name="id" value="{{.SID}}">
  <input type="hidden" name="sig" value="{{.TrimSig}}">
  <label>Start <input type="text" name="start" value="0:00.000" size="10"></label>
  <label>End <input type="text" name="end" value="{{.DurationStr}}" size="10"></label>
  <label><input type="checkbox" name="ringtone_mode" value="true"> Ringtone (30 s)</label>
  <label><input type="checkbox" name="precise" value="true" checked> Precise cut</label>
  <input type="hidden" name="precise" value="false">
  <label><input type="checkbox" name="fades" value="true" checked> Fade in/out</label>
  <input type="hidden" name="fades" value="false">
  <button type="submit">Cut &amp; download</button>
</form>
<form method="post" action="/cancel">
  <input type="hidden" name="id" value="{{.SID}}">
  <input type="hidden" name="sig" value="{{.CancelSig}}">
  <button type="submit">Discard session</button>
</form>
</body>
</html>`))
