// Package models provides the wire-level data structures shared by every azfluent service package.
//
// This package contains the "inner" resource shapes exchanged with Azure Resource Manager
// and the Azure AD Graph API. By keeping them in a separate package, the fluent wrappers,
// the CLI and tests can all import them without creating circular dependencies.
//
// The models in this package represent:
//   - Graph RBAC: applications, service principals, users, groups and their credentials
//   - Authorization: role assignments and role definitions
//   - Batch AI: workspaces, clusters, experiments, jobs and file servers
//   - Compute: snapshots, images and virtual machines
//   - Network: network security groups, security rules and public IP addresses
//   - Key Vault: vaults, access policies and network rule sets
//
// All structs carry JSON tags matching the REST payloads. Optional booleans and numbers
// that must be sent even when false or zero are pointers.
package models
