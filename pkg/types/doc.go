/*
Package types defines the shared domain model for the Piccolo cluster:
nodes and their liveness states, container observations as reported by node
agents, and the derived Model/Package/Scenario state alphabets.

The JSON encoding of Node and ContainerInfo is the stable wire and storage
format — field names are lowercase_snake and match the records persisted in
the KV store and the bodies served by the REST API.

State enums are string-typed so that stored values remain human-readable in
etcdctl output and REST responses.
*/
package types
