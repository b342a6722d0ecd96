// Package auth signs families in to edit their registration.
//
// # Magic Links
//
// RequestMagicLink resolves an email to a household and mails a link of the
// form <form_url>?edit=<token>&expires=<epoch ms>. The token is a random
// UUID stored in the key-value store under "magiclink_<token>" with the
// household id and expiry as JSON. ValidateToken deletes the entry on every
// outcome, so a link can be redeemed at most once. Expiry is checked against
// the stored timestamp; a store-level TTL only bounds storage.
//
// # Edit Codes
//
// Authenticate compares the household's 6-digit edit code in constant time
// and then requires the email to still be in use by the current snapshot, so
// a guardian removed from the household cannot sign in with an old address.
//
// # Sessions
//
// Either sign-in yields a Session token: an HS256 JWT whose subject is the
// household id. RequireSession puts the verified Session in the request
// context; handlers check Session.Allows before touching a household.
package auth
