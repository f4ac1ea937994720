// Package http exposes the conference scheduling API.
//
// Organizer endpoints:
//   - GET /sessions, POST /sessions (form), POST /sessions/create (JSON batch)
//   - GET, PATCH and DELETE /sessions/{id}
//   - POST /sessions/conflicts: dry-run conflict check for a candidate slot
//   - POST /sessions/bulk-invite: one invitation e-mail per recipient
//   - GET and POST /faculty, GET and POST /halls
//
// Faculty endpoints, reached from the invitation e-mail:
//   - GET /faculty/sessions?email=
//   - POST /faculty/sessions/{id}/respond
//
// Every JSON body carries a success flag. Errors render as
// {"success":false,"error","errors","conflicts"} with the message localized
// from Accept-Language.
package http
