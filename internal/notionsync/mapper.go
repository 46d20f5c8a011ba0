package notionsync

import (
	"github.com/jomei/notionapi"

	"github.com/parkozhao/spendscope/internal/ledger"
)

// RecordToNotionProperties converts one consumption record to Notion page
// properties. The title is the record key so sync runs can match pages
// back to ledger rows.
func RecordToNotionProperties(r *ledger.Record) notionapi.Properties {
	props := notionapi.Properties{
		"Transaction": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: r.Key().String(),
					},
				},
			},
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: (*notionapi.Date)(&r.Timestamp),
			},
		},
		"Platform": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: r.Platform.String(),
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: r.EffectiveAmount.InexactFloat64(),
		},
		"Refunded": notionapi.CheckboxProperty{
			Checkbox: r.IsRefunded,
		},
	}

	if r.Counterparty != "" {
		props["Merchant"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: r.Counterparty,
					},
				},
			},
		}
	}

	if r.Description != "" {
		props["Description"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: r.Description,
					},
				},
			},
		}
	}

	if r.CategoryL1 != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: r.CategoryL1,
			},
		}
	}

	if r.CategoryL2 != "" {
		props["Subcategory"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: r.CategoryL2,
			},
		}
	}

	if r.UserID != "" {
		props["User"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: r.UserID,
			},
		}
	}

	return props
}

// extractTransactionKey pulls the record key back out of a page title.
func extractTransactionKey(page notionapi.Page) string {
	prop, ok := page.Properties["Transaction"]
	if !ok {
		return ""
	}
	title, ok := prop.(*notionapi.TitleProperty)
	if !ok {
		return ""
	}
	if len(title.Title) == 0 {
		return ""
	}
	return title.Title[0].PlainText
}
