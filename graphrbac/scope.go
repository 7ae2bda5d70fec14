package graphrbac

import (
	"net/url"
	"strings"
)

// SubscriptionScope returns the role scope of a subscription.
func SubscriptionScope(subscriptionID string) string {
	return "/subscriptions/" + subscriptionID
}

// ResourceGroupScope returns the role scope of a resource group.
func ResourceGroupScope(subscriptionID, resourceGroup string) string {
	return SubscriptionScope(subscriptionID) + "/resourceGroups/" + resourceGroup
}

// subscriptionOfScope extracts the subscription ID from a scope, or "" if it has none.
func subscriptionOfScope(scope string) string {
	parts := strings.Split(strings.Trim(scope, "/"), "/")
	if len(parts) >= 2 && strings.EqualFold(parts[0], "subscriptions") {
		return parts[1]
	}
	return ""
}

// odataQuote quotes s as an OData string literal.
func odataQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// withFilter appends an OData $filter to path.
func withFilter(path, filter string) string {
	return path + "?$filter=" + url.QueryEscape(filter)
}
