// Package mention finds @name tokens in free text, highlights them for display
// and resolves them to identities.
package mention
