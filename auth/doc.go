// Package auth contains the building blocks used to authenticate
// requests: password digests and signed session tokens.
//
// Passwords are never kept around, only an argon2id digest that embeds
// its own salt and cost parameters. That way the parameters can be
// tuned later without breaking digests that are already stored.
//
// Tokens are plain HS256 JWTs. The claims are NOT secret, anyone holding
// a token can read them, the signature only guarantees they were issued
// by us. So never put anything other than the account id and the admin
// hint in there.
//
// The server keeps no session state. A token is valid until it expires,
// and the admin flag it carries might be stale, which is why the guard
// package always asks the store before letting an admin call through.
package auth
