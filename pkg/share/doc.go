// Package share is the rate-limited sharing gateway: create, read and
// delete operations on shared chats keyed by "{owner}/{id}".
//
// Writes and deletes require the dual session cookies and pass an ordered
// chain of checks (cookie presence, content type, token verification,
// ownership, role, quota) where the first failure short-circuits with no
// side effects. Reads are public and never touch cookies.
//
// Quota state is never stored: both ceilings are recomputed from the owner's
// object listing on every write. The listing is read without any lock
// against the store, so two concurrent writes can both pass the check and
// transiently exceed a ceiling. The caps are soft; replacing them with hard
// guarantees would take a transactional counter, not locking here.
package share
