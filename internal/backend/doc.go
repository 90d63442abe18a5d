// Package backend defines the narrow interfaces through which the pool
// reaches its external collaborators: site provisioning, worker process
// inspection, repository wipes, and web-root file writes.
//
// The pool treats all of them as stateless per-call services. The production
// implementation against the site-admin gateway lives in internal/adminapi;
// tests inject in-memory fakes.
package backend
