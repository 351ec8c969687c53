/*
Package knowledge loads and queries the static certification-process corpus.

The corpus is a closed set of typed records (application steps, document
templates, FAQ entries) plus a few fixed lists. It is read once, validated, and
shared read-only afterwards; a missing or broken corpus file falls back to the
built-in default so the dialogue engine always has an answerable state.
*/
package knowledge
