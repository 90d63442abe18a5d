// Package adminapi implements the pool's backend interfaces against the
// site-admin gateway's REST API.
//
// Site lookup and creation go through the central /api/sites endpoints;
// process, repository, file, and diagnostics operations go through each
// site's own management (SCM) host. All calls carry bearer-token auth and
// pass through a shared client-side rate limiter, since admin gateways
// throttle management traffic aggressively.
package adminapi
