// Package notion provides a client for the subset of the Notion API used to
// provision databases.
//
// It covers:
//   - Creating databases and updating their property schema
//   - Creating rows (pages) and updating their property values
//   - Querying all rows of a database, handling pagination
//
// Requests carry the integration token as a bearer credential and are paced
// at 3 req/sec.
package notion
