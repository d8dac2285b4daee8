// Package crm records clients and leads in iCount on behalf of the
// assistant's tool calls. Missing credentials make every call a logged
// no-op so the conversation never fails on billing setup.
package crm
