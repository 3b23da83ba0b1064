// Package registry holds the well-known (protocol, port) → ServiceInfo
// mapping used to identify what's listening on a given port. It is a
// process-wide, read-only resource built once, on the first call to
// Default — safe to share without locking since nothing ever mutates it
// after New.
package registry

import (
	"sync"

	"github.com/portwatch/portwatch/internal/model"
)

type key struct {
	protocol model.Protocol
	port     int
}

// entry is one registration in the ordered seed list below. Later entries
// for the same (protocol, port) win — "last registration wins" is a
// documented, stable collision rule, not a bug to silently fix.
type entry struct {
	protocol model.Protocol
	port     int
	info     model.ServiceInfo
}

// seed is the ordered list of well-known services. Where two entries
// collide on the same port (3000: Dev-Server vs. Grafana, below), the
// later one in this list is authoritative — this slice *is* the
// documentation of that order.
var seed = []entry{
	{model.TCP, 20, model.ServiceInfo{"FTP-Data", "FTP data transfer", model.CategoryInfra}},
	{model.TCP, 21, model.ServiceInfo{"FTP", "File Transfer Protocol", model.CategoryInfra}},
	{model.TCP, 22, model.ServiceInfo{"SSH", "Secure Shell", model.CategoryInfra}},
	{model.TCP, 23, model.ServiceInfo{"Telnet", "Telnet remote login", model.CategoryInfra}},
	{model.TCP, 25, model.ServiceInfo{"SMTP", "Simple Mail Transfer Protocol", model.CategoryInfra}},
	{model.TCP, 53, model.ServiceInfo{"DNS", "Domain Name System", model.CategoryInfra}},
	{model.UDP, 53, model.ServiceInfo{"DNS", "Domain Name System", model.CategoryInfra}},
	{model.TCP, 67, model.ServiceInfo{"DHCP", "Dynamic Host Configuration Protocol", model.CategoryInfra}},
	{model.TCP, 80, model.ServiceInfo{"HTTP", "Hypertext Transfer Protocol", model.CategoryWeb}},
	{model.TCP, 110, model.ServiceInfo{"POP3", "Post Office Protocol v3", model.CategoryInfra}},
	{model.TCP, 111, model.ServiceInfo{"RPCbind", "ONC RPC port mapper", model.CategoryInfra}},
	{model.TCP, 123, model.ServiceInfo{"NTP", "Network Time Protocol", model.CategoryInfra}},
	{model.TCP, 143, model.ServiceInfo{"IMAP", "Internet Message Access Protocol", model.CategoryInfra}},
	{model.TCP, 161, model.ServiceInfo{"SNMP", "Simple Network Management Protocol", model.CategoryMonitoring}},
	{model.TCP, 179, model.ServiceInfo{"BGP", "Border Gateway Protocol", model.CategoryInfra}},
	{model.TCP, 389, model.ServiceInfo{"LDAP", "Lightweight Directory Access Protocol", model.CategorySecurity}},
	{model.TCP, 443, model.ServiceInfo{"HTTPS", "HTTP over TLS", model.CategoryWeb}},
	{model.TCP, 445, model.ServiceInfo{"SMB", "Server Message Block", model.CategoryInfra}},
	{model.TCP, 465, model.ServiceInfo{"SMTPS", "SMTP over TLS", model.CategoryInfra}},
	{model.TCP, 514, model.ServiceInfo{"Syslog", "System logging protocol", model.CategoryMonitoring}},
	{model.TCP, 587, model.ServiceInfo{"SMTP-Submission", "SMTP mail submission", model.CategoryInfra}},
	{model.TCP, 636, model.ServiceInfo{"LDAPS", "LDAP over TLS", model.CategorySecurity}},
	{model.TCP, 873, model.ServiceInfo{"rsync", "rsync file sync daemon", model.CategoryInfra}},
	{model.TCP, 993, model.ServiceInfo{"IMAPS", "IMAP over TLS", model.CategoryInfra}},
	{model.TCP, 995, model.ServiceInfo{"POP3S", "POP3 over TLS", model.CategoryInfra}},
	{model.TCP, 1433, model.ServiceInfo{"MSSQL", "Microsoft SQL Server", model.CategoryDatabase}},
	{model.TCP, 1521, model.ServiceInfo{"Oracle", "Oracle database listener", model.CategoryDatabase}},
	{model.TCP, 2181, model.ServiceInfo{"Zookeeper", "Apache ZooKeeper coordination", model.CategoryInfra}},
	{model.TCP, 2375, model.ServiceInfo{"Docker", "Docker daemon (unencrypted)", model.CategoryInfra}},
	{model.TCP, 2376, model.ServiceInfo{"Docker-TLS", "Docker daemon (TLS)", model.CategoryInfra}},
	{model.TCP, 2379, model.ServiceInfo{"etcd-client", "etcd client API", model.CategoryInfra}},
	{model.TCP, 2380, model.ServiceInfo{"etcd-peer", "etcd peer API", model.CategoryInfra}},
	{model.TCP, 3000, model.ServiceInfo{"Dev-Server", "Common dev-server port (Node/Rails/etc.)", model.CategoryDev}},
	{model.TCP, 3306, model.ServiceInfo{"MySQL", "MySQL/MariaDB database", model.CategoryDatabase}},
	{model.TCP, 3389, model.ServiceInfo{"RDP", "Remote Desktop Protocol", model.CategoryInfra}},
	{model.TCP, 4000, model.ServiceInfo{"Debug-Port", "Common application debug port", model.CategoryDev}},
	{model.TCP, 4369, model.ServiceInfo{"EPMD", "Erlang Port Mapper Daemon", model.CategoryInfra}},
	{model.TCP, 5000, model.ServiceInfo{"Dev-Server-Alt", "Common dev-server port (Flask/etc.)", model.CategoryDev}},
	{model.TCP, 5005, model.ServiceInfo{"JDWP", "Java Debug Wire Protocol", model.CategoryDev}},
	{model.TCP, 5432, model.ServiceInfo{"PostgreSQL", "PostgreSQL database", model.CategoryDatabase}},
	{model.TCP, 5601, model.ServiceInfo{"Kibana", "Kibana dashboard", model.CategoryMonitoring}},
	{model.TCP, 5672, model.ServiceInfo{"RabbitMQ", "RabbitMQ AMQP broker", model.CategoryMessaging}},
	{model.TCP, 5858, model.ServiceInfo{"Node-Inspector", "Legacy Node.js debug inspector", model.CategoryDev}},
	{model.TCP, 5984, model.ServiceInfo{"CouchDB", "Apache CouchDB", model.CategoryDatabase}},
	{model.TCP, 6379, model.ServiceInfo{"Redis", "Redis in-memory store", model.CategoryCache}},
	{model.TCP, 7000, model.ServiceInfo{"Cassandra-Intra", "Cassandra inter-node", model.CategoryDatabase}},
	{model.TCP, 8000, model.ServiceInfo{"HTTP-Alt2", "Alternate HTTP dev port", model.CategoryDev}},
	{model.TCP, 8080, model.ServiceInfo{"HTTP-Alt", "Alternate HTTP port", model.CategoryWeb}},
	{model.TCP, 8086, model.ServiceInfo{"InfluxDB", "InfluxDB time-series database", model.CategoryDatabase}},
	{model.TCP, 8200, model.ServiceInfo{"Vault", "HashiCorp Vault", model.CategorySecurity}},
	{model.TCP, 8443, model.ServiceInfo{"HTTPS-Alt", "Alternate HTTPS port", model.CategoryWeb}},
	{model.TCP, 8500, model.ServiceInfo{"Consul", "HashiCorp Consul", model.CategoryInfra}},
	{model.TCP, 9000, model.ServiceInfo{"PHP-FPM", "PHP FastCGI Process Manager", model.CategoryWeb}},
	{model.TCP, 9042, model.ServiceInfo{"Cassandra", "Cassandra client port", model.CategoryDatabase}},
	{model.TCP, 9092, model.ServiceInfo{"Kafka", "Apache Kafka broker", model.CategoryMessaging}},
	{model.TCP, 9100, model.ServiceInfo{"Node-Exporter", "Prometheus node exporter", model.CategoryMonitoring}},
	{model.TCP, 9200, model.ServiceInfo{"Elasticsearch", "Elasticsearch HTTP API", model.CategorySearch}},
	{model.TCP, 9229, model.ServiceInfo{"Node-Inspector", "Node.js debug inspector", model.CategoryDev}},
	{model.TCP, 9300, model.ServiceInfo{"Elasticsearch-Transport", "Elasticsearch transport", model.CategorySearch}},
	{model.TCP, 9990, model.ServiceInfo{"Wildfly-Admin", "WildFly/JBoss admin console", model.CategoryInfra}},
	{model.TCP, 11211, model.ServiceInfo{"Memcached", "Memcached", model.CategoryCache}},
	{model.TCP, 15672, model.ServiceInfo{"RabbitMQ-Mgmt", "RabbitMQ management UI", model.CategoryMessaging}},
	{model.TCP, 27017, model.ServiceInfo{"MongoDB", "MongoDB database", model.CategoryDatabase}},
	{model.TCP, 8081, model.ServiceInfo{"HTTP-Alt3", "Alternate HTTP dev port", model.CategoryDev}},
	{model.TCP, 9090, model.ServiceInfo{"Prometheus", "Prometheus server", model.CategoryMonitoring}},
	// Grafana's default port collides with the Dev-Server entry above on
	// purpose: last-registration-wins means this entry is authoritative.
	{model.TCP, 3000, model.ServiceInfo{"Grafana", "Grafana dashboards", model.CategoryMonitoring}},
}

// Registry is a read-only (protocol, port) → ServiceInfo lookup, safe to
// share across goroutines without locking once built.
type Registry struct {
	byKey map[key]model.ServiceInfo
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry, built once lazily.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New()
	})
	return defaultReg
}

// New builds a fresh registry from the seed list. Exposed mainly for
// tests that want a registry independent of the process-wide singleton.
func New() *Registry {
	r := &Registry{byKey: make(map[key]model.ServiceInfo, len(seed))}
	for _, e := range seed {
		r.byKey[key{e.protocol, e.port}] = e.info
	}
	return r
}

// Lookup is a pure function of (port, protocol): same inputs always
// produce the same result, with no hidden state influencing the outcome.
func (r *Registry) Lookup(port int, protocol model.Protocol) (model.ServiceInfo, bool) {
	info, ok := r.byKey[key{protocol, port}]
	return info, ok
}

// DatabasePorts returns the set of ports registered under the DATABASE
// category, used by the security classifier's database-exposure rule.
func (r *Registry) DatabasePorts() map[int]struct{} {
	out := make(map[int]struct{})
	for k, v := range r.byKey {
		if v.Category == model.CategoryDatabase {
			out[k.port] = struct{}{}
		}
	}
	return out
}
