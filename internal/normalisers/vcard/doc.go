// Package vcard parses vCard 3.0 and 4.0 payloads into records and writes
// records back out as vCard 4.0.
//
// Structured values such as ADR keep their ";"-joined component form so
// that two addresses compare equal exactly when every component does.
// Properties the records do not monitor are carried in Record.Extra and
// written back unchanged.
package vcard
