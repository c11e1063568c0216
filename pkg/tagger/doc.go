// Package tagger derives topics, sentiment and writing style from post text
// using local word lists and simple rules.
//
// Topics are relative to the whole corpus: TagAll first counts tokens across
// every post to build a top-K vocabulary, then gives each post the
// vocabulary tokens it contains. Tag a finished post set, never a stream.
package tagger
