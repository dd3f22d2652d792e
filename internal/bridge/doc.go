// Package bridge turns Gotify notifications into Telegram deliveries.
//
// It filters by application and body, resolves the application name, composes
// the outgoing text and hands it to the delivery engine. Verification codes
// found in the text become a copy button through ExtractCode.
package bridge
