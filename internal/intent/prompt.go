package intent

import (
	"strings"

	"seafood-agent/internal/domain"
)

func classifyPrompt() string {
	return strings.Join([]string{
		"Role:",
		"You are the command interpreter of a seafood shop's admin chat bot. Messages are in Spanish.",
		"",
		"Task:",
		"Classify the last user message into exactly one intent and extract its params.",
		"Use the earlier turns only to resolve references such as \"ese\", \"el último\" or \"márcalo\".",
		"",
		"Intents and params:",
		intentCatalog(),
		"",
		"Rules:",
		"1) Amounts and prices are numbers in USD. Quantities are numbers.",
		"2) Leave ids null when the user refers to the item just discussed.",
		"3) confidence is your certainty in [0,1]. Below 0.70, list up to 4 alternatives with a short Spanish description each.",
		"4) For chat and help put the full Spanish reply in message.",
		"5) description is a short Spanish paraphrase of the chosen action.",
		"",
		"Output Contract:",
		"Return JSON only: {\"intent\":string,\"params\":object,\"confidence\":number,\"message\":string,\"description\":string,",
		"\"alternatives\":[{\"intent\":string,\"params\":object,\"description\":string}]}",
	}, "\n")
}

func intentCatalog() string {
	return strings.Join([]string{
		"- create_customer {name, phone}",
		"- rename_customer {customer, new_name}",
		"- set_customer_phone {customer, phone}",
		"- deactivate_customer {customer}",
		"- view_balance {customer}",
		"- view_movements {customer, limit}",
		"- record_transaction {customer, type: purchase|payment, amount, lane: bcv|divisas|euro_bcv, description, payment_method, date: YYYY-MM-DD}",
		"- record_purchase_items {customer, pricing_mode: bcv|divisas|dual}  (purchase described with products and quantities)",
		"- mark_transaction_paid {transaction_id, paid}",
		"- delete_transaction {transaction_id}",
		"- share_link {customer, revoke}",
		"- create_quote {pricing_mode: bcv|divisas|dual, customer}",
		"- view_quote {quote_id}",
		"- delete_quote {quote_id}",
		"- mark_quote_paid {quote_ids: [number], paid}",
		"- send_quote {quote_id}",
		"- search_quotes {customer}",
		"- edit_quote {quote_id, ops: [{op, item, product, quantity, unit, price, secondary_price, amount, name, date, hide}]}",
		"    op is one of set_item_price, set_item_quantity, decrement_quantity, remove_item, add_item,",
		"    substitute_item, set_delivery, set_customer_name, set_date, toggle_rate",
		"- link_quote {quote_id, customer}",
		"- list_products {category}",
		"- reprice_product {product, price_bcv, price_divisa}",
		"- set_availability {product, available}",
		"- set_theme {theme}",
		"- view_stats {}",
		"- exchange_rate {rate}  (rate null to only show it)",
		"- help {}",
		"- chat {}",
		"- clarification_reply {choice}",
	}, "\n")
}

func extractPrompt(products []string) string {
	return strings.Join([]string{
		"Role:",
		"You extract order line items from a Spanish message for a seafood shop.",
		"",
		"Catalog products:",
		strings.Join(products, "\n"),
		"",
		"Rules:",
		"1) Map every product mentioned to the closest catalog name in items. Keep the catalog spelling.",
		"2) Products that are not in the catalog go to unmatched, with price when the user gave one.",
		"3) price and secondary_price are only set when the user states a price for that item.",
		"4) delivery is the delivery charge in USD when mentioned, otherwise null.",
		"5) customer_name is the customer the order is for, otherwise empty.",
		"",
		"Output Contract:",
		"Return JSON only: {\"items\":[{\"product\":string,\"quantity\":number,\"unit\":string,\"price\":number|null,\"secondary_price\":number|null}],",
		"\"unmatched\":[{\"name\":string,\"quantity\":number,\"unit\":string,\"price\":number|null}],",
		"\"delivery\":number|null,\"customer_name\":string,\"date\":\"YYYY-MM-DD\"|\"\"}",
	}, "\n")
}

func buildMessages(system string, history []domain.ChatTurn, text string) []domain.ChatMessage {
	messages := []domain.ChatMessage{{Role: "system", Content: system}}
	for _, t := range history {
		content := strings.TrimSpace(t.Text)
		if content == "" {
			continue
		}
		role := "user"
		if t.Role == domain.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, domain.ChatMessage{Role: role, Content: content})
	}
	return append(messages, domain.ChatMessage{Role: "user", Content: text})
}
