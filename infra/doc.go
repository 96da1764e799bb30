// Package infra contains the technical adapters of the scheduling service:
// the SQLite fault store, the student directory, MQTT and Kafka assignment
// publishers, metrics exporters and the run history. These packages should
// depend only on the interfaces defined in the core packages.
package infra
