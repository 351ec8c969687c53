/*
Package observability turns dialogue lifecycle events into metrics and logs.

Metrics registers Prometheus collectors and exposes them as domain.LifecycleHooks;
LogHooks does the same for structured logging. Chain combines several hook sets so
the engine can feed both at once.
*/
package observability
