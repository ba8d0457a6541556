/*
Package config loads and validates the pgraft daemon's YAML configuration
file, covering every option in the external-interfaces contract: node
identity, cluster sizing, Raft timing, peer list, and replication policy.
*/
package config
