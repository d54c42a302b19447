package templates

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefinesPages(t *testing.T) {
	tmpl, err := Parse()
	require.NoError(t, err)

	for _, name := range []string{"signup.html", "login.html", "home.html", "messages"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestMessagesPartialEscapesText(t *testing.T) {
	tmpl := MustParse()

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "messages", []struct{ Level, Text string }{
		{Level: "error", Text: "<script>"},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "message-error")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}
