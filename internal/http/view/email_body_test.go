package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "0123456789abcdef0123456789abcdef"

func TestBuildTrackingURLs(t *testing.T) {
	urls := BuildTrackingURLs("https://mail.example.com/", testID, "https://shop.example.com/p?a=1&b=2")

	assert.Equal(t, "https://mail.example.com/track/"+testID+".gif", urls.Pixel)
	assert.Equal(t,
		"https://mail.example.com/click/"+testID+"?redirect=https%3A%2F%2Fshop.example.com%2Fp%3Fa%3D1%26b%3D2",
		urls.Click)

	bare := BuildTrackingURLs("http://localhost:8080", testID, "")
	assert.Equal(t, "http://localhost:8080/click/"+testID, bare.Click)
}

func TestRenderEmailBody_WithoutImage(t *testing.T) {
	html, err := RenderEmailBody(EmailBodyData{
		BaseURL:    "https://mail.example.com",
		TrackingID: testID,
		Body:       "Hello <b>friend</b>\nSee you",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Hello &lt;b&gt;friend&lt;/b&gt;<br>See you")
	assert.Equal(t, 1, strings.Count(html, "/track/"+testID+".gif"))
	assert.NotContains(t, html, "/click/")
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "</html>")
}

func TestRenderEmailBody_WithImage(t *testing.T) {
	html, err := RenderEmailBody(EmailBodyData{
		BaseURL:     "https://mail.example.com",
		TrackingID:  testID,
		Body:        "Offer inside",
		ImageURL:    "https://cdn.example.com/banner.png",
		RedirectURL: "https://shop.example.com/?x=1&y=2",
	})
	require.NoError(t, err)

	assert.Contains(t, html, `<img src="https://cdn.example.com/banner.png"`)
	assert.Contains(t, html, `href="https://mail.example.com/click/`+testID+`?redirect=https%3A%2F%2Fshop.example.com%2F%3Fx%3D1%26y%3D2"`)
	assert.Equal(t, 1, strings.Count(html, "/track/"+testID+".gif"))
}

func TestRenderEmailBody_RejectsScriptImageURL(t *testing.T) {
	html, err := RenderEmailBody(EmailBodyData{
		BaseURL:    "https://mail.example.com",
		TrackingID: testID,
		ImageURL:   "javascript:alert(1)",
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "javascript:")
	assert.Contains(t, html, "#ZgotmplZ")
}
