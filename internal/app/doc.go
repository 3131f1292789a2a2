// Package app composes the marketplace services over a set of stores and
// manages their lifecycle.
//
//	internal/app/
//	├── application.go   # Stores, Application wiring and lifecycle
//	├── domain/          # entity types and enums
//	├── storage/         # store interfaces; memory, postgres and redis implementations
//	├── services/        # business operations (accounts, sessions, catalog, cart, orders, reviews)
//	├── httpapi/         # REST routes
//	├── system/          # Service interface and Manager
//	├── metrics/         # Prometheus collectors
//	└── runtime/         # config-driven process wiring and HTTP server
//
// Business rules live in services; httpapi only decodes, authorises the
// session and renders results.
package app
