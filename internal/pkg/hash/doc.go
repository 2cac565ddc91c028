// Package hash hashes account passwords (bcrypt or Argon2id, chosen by
// configuration) and derives keyed digests for short-lived tokens.
package hash
