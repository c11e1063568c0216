// Package auth stores the data provider API key.
//
// Keys are kept per profile. Manager tries the system keychain first, then
// an AES-GCM encrypted file under the user config directory, and finally
// reads POSTSCOPE_API_KEY, SOCIALDATA_API_KEY or TWITTER_API_KEY from the
// environment. Keys are never logged; use MaskKey or Sanitize for display.
package auth
