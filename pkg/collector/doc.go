// Package collector provides the core functionality of this exporter.
//
// It implements the Prometheus collector interface, reading the
// `bridge-stats` files of every tor instance found on the machine whenever a
// request hits this exporter, allowing us to not have to rely on a
// particular interval defined in this exporter (instead, rely on prometheus'
// scrape interval).
//
// A statistics file looks like:
//
//	bridge-stats-end 2024-01-01 00:00:00 (86400 s)
//	bridge-ips us=16,de=8,??=8
//	bridge-ip-versions v4=24,v6=8
//	bridge-ip-transports <OR>=8,obfs4=16
//
// from which `tor_bridge_stats_countries`, `tor_bridge_stats_ip_version` and
// `tor_bridge_stats_transports` are built, each sample labelled with the
// instance it came from (`tor_instance`).
//
package collector
