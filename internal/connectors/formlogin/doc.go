// Package formlogin fetches vCard files from sites that require signing in
// through an HTML form first.
//
// Each download opens a fresh cookie session, posts the source's username
// and password to the login URL and then downloads the file inside that
// session. A login is considered rejected when the URL the post ends up on
// contains the error marker.
//
// Connection params:
//
//	username_field  form field for the username (default "username")
//	password_field  form field for the password (default "password")
//	error_marker    substring of a failed login's final URL (default "err=true")
package formlogin
