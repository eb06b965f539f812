package view

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
)

// EmailBodyData provides the dynamic fields required by the email template.
type EmailBodyData struct {
	// BaseURL is scheme://host of the serving instance, without a trailing slash.
	BaseURL     string
	TrackingID  string
	Body        string
	ImageURL    string
	RedirectURL string
}

// TrackingURLs are the absolute addresses embedded in one message.
type TrackingURLs struct {
	Pixel string
	Click string
}

// BuildTrackingURLs derives the pixel and click-redirect URLs for a tracking id.
func BuildTrackingURLs(baseURL, trackingID, redirectURL string) TrackingURLs {
	base := strings.TrimRight(baseURL, "/")
	id := url.PathEscape(trackingID)

	click := base + "/click/" + id
	if redirectURL != "" {
		click += "?redirect=" + url.QueryEscape(redirectURL)
	}
	return TrackingURLs{
		Pixel: base + "/track/" + id + ".gif",
		Click: click,
	}
}

type emailBodyView struct {
	Paragraphs []string
	ImageURL   string
	ClickURL   string
	PixelURL   string
}

var emailBodyTmpl = template.Must(template.New("email_body").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
	<div>{{range $i, $line := .Paragraphs}}{{if $i}}<br>{{end}}{{$line}}{{end}}</div>
	{{- if .ImageURL}}
	<p><a href="{{.ClickURL}}"><img src="{{.ImageURL}}" alt="" style="max-width:100%;height:auto;border:0;"></a></p>
	{{- end}}
	<img src="{{.PixelURL}}" width="1" height="1" alt="" style="display:none;border:0;">
</body>
</html>
`))

// RenderEmailBody expands the email template. The body is treated as plain
// text: markup is escaped and line breaks become <br>. The tracking pixel is
// always emitted exactly once; the image, when present, links through the
// click redirect.
func RenderEmailBody(data EmailBodyData) (string, error) {
	urls := BuildTrackingURLs(data.BaseURL, data.TrackingID, data.RedirectURL)

	body := strings.ReplaceAll(data.Body, "\r\n", "\n")
	v := emailBodyView{
		Paragraphs: strings.Split(body, "\n"),
		ImageURL:   data.ImageURL,
		ClickURL:   urls.Click,
		PixelURL:   urls.Pixel,
	}

	var buf bytes.Buffer
	if err := emailBodyTmpl.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
