// Package core contains the application assembly contracts and orchestration:
// configuration layering, storage backend selection, module installation,
// resource registration, index management, locale resolution and error
// translation. Adapters for concrete libraries live in sibling packages and
// depend on core; core must not depend on them.
package core
