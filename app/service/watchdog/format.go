package watchdog

import (
	"fmt"
	"strings"

	"lawline/app/client/assistant"
	"lawline/app/service/leads"
	"lawline/app/util/textutil"
)

// joinByRole concatenates the delta's messages of one role so the
// classifier can scan them as a single text.
func joinByRole(delta []assistant.Message, role string) string {
	var parts []string
	for _, msg := range delta {
		if msg.Role == role && msg.Text != "" {
			parts = append(parts, msg.Text)
		}
	}

	return strings.Join(parts, "\n")
}

// buildRelayText composes the HTML payload for the notification sink. All
// quoted text is escaped; the sink falls back to plain text on its own if
// the markup is still rejected.
func buildRelayText(convID string, delta []assistant.Message, verdict leads.Verdict, publicURL string, firstRelay bool) string {
	var b strings.Builder

	if verdict.Urgent {
		b.WriteString("<b>URGENT</b> ")
	}

	if firstRelay {
		b.WriteString("<b>New dialog</b>")
	} else {
		b.WriteString("<b>Supplement</b>")
	}

	fmt.Fprintf(&b, " (%s)\n", textutil.EscapeHTML(verdict.Reason))

	for _, msg := range delta {
		label := "Client"
		if msg.Role == assistant.RoleAssistant {
			label = "Bot"
		}

		fmt.Fprintf(&b, "\n<b>%s:</b> %s", label, textutil.EscapeHTML(msg.Text))
	}

	if publicURL != "" {
		fmt.Fprintf(&b, "\n\n<a href=\"%s/history/%s\">Full history</a>",
			strings.TrimSuffix(publicURL, "/"), convID)
	}

	return b.String()
}
