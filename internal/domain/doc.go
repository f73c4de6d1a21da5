// Package domain holds the core types shared across the engagement and
// campaign pipeline: signup users, email events, campaigns, segments,
// bounce/complaint records, and A/B tests. Types here carry no behavior
// beyond small predicates; persistence and business rules live in the
// service packages.
package domain
