// Package integration names the upstream systems the dashboard pulls from and
// the ports the application layer uses to reach them.
//
// An upstream is identified by a SourceCode. Raw payloads come through
// AdStatsSource and OrderSource, whose adapters live under
// internal/infrastructure. The ad platform's OAuth credential is modelled by
// TokenData and persisted through a TokenStore.
package integration
