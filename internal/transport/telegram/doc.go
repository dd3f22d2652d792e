// Package telegram talks to the Telegram Bot API.
//
// Client.Call performs one POST per call: sendMessage is form-encoded and
// sendDocument is multipart with a single file part. Replies are decoded as
// {"ok":bool,"error_code":int,"description":string}.
//
// Errors come in two kinds. A non-temporary *APIError means the API answered
// and refused the content. Everything else (dial, TLS, timeout, unreadable
// body, 429 or 5xx answers) means the API could not be used right now.
// Callers separate them with IsRejection.
//
// Identifier runs the getMe reachability check through telebot so the probe
// shares the bot bootstrap path used elsewhere for bot identity.
package telegram
