package email

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// AlertNotice is what an alert email reports.
type AlertNotice struct {
	AlertID        string
	VariantID      string
	Type           string
	Resolved       bool
	TotalAvailable int
	At             time.Time
	Locations      []LocationLevel
}

// LocationLevel is one row of the per location breakdown.
type LocationLevel struct {
	LocationID string
	OnHand     int
	Reserved   int
	Available  int
	Threshold  *int
}

func AlertSubject(n AlertNotice) string {
	label := alertLabel(n.Type)
	if n.Resolved {
		return fmt.Sprintf("[Resolved] %s for variant %s", label, shortID(n.VariantID))
	}
	return fmt.Sprintf("[Stock alert] %s for variant %s", label, shortID(n.VariantID))
}

// BuildAlertBody builds the HTML body of an alert email
func BuildAlertBody(n AlertNotice) string {
	var rows strings.Builder
	for _, l := range n.Locations {
		threshold := "-"
		if l.Threshold != nil {
			threshold = formatNumber(*l.Threshold)
		}
		rows.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 8px; border-bottom: 1px solid #eee; font-family: monospace;">%s</td>
				<td style="padding: 8px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 8px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 8px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 8px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			html.EscapeString(l.LocationID),
			formatNumber(l.OnHand),
			formatNumber(l.Reserved),
			formatNumber(l.Available),
			threshold,
		))
	}

	status := "raised"
	color := "#c0392b"
	if n.Resolved {
		status = "resolved"
		color = "#27ae60"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 640px; margin: 0 auto; padding: 20px;">
	<div style="background: %s; padding: 20px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 22px;">%s %s</h1>
	</div>

	<div style="background: #fff; padding: 20px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Variant <strong style="font-family: monospace;">%s</strong> has %s units available across all locations.</p>
		<p style="font-size: 12px; color: #666;">Alert %s at %s</p>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 8px; text-align: left;">Location</th>
					<th style="padding: 8px; text-align: right;">On hand</th>
					<th style="padding: 8px; text-align: right;">Reserved</th>
					<th style="padding: 8px; text-align: right;">Available</th>
					<th style="padding: 8px; text-align: right;">Low threshold</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>
	</div>
</body>
</html>`,
		color,
		html.EscapeString(alertLabel(n.Type)),
		status,
		html.EscapeString(n.VariantID),
		formatNumber(n.TotalAvailable),
		html.EscapeString(n.AlertID),
		n.At.UTC().Format(time.RFC3339),
		rows.String(),
	)
}

func alertLabel(t string) string {
	switch t {
	case "oos":
		return "Out of stock"
	case "low_stock":
		return "Low stock"
	}
	return t
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatNumber formats a number with comma separators
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	remainder := len(str) % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		result.WriteString(",")
	}

	for i := remainder; i < len(str); i += 3 {
		result.WriteString(str[i : i+3])
		if i+3 < len(str) {
			result.WriteString(",")
		}
	}

	return result.String()
}
