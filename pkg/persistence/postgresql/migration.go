package postgresql

// migrations returns the schema migrations, keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				variables JSONB NOT NULL DEFAULT '{}',
				settings JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE TABLE IF NOT EXISTS submissions (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				source VARCHAR(255) NOT NULL DEFAULT '',
				payload TEXT NOT NULL DEFAULT '',
				status VARCHAR(32) NOT NULL DEFAULT 'pending',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_submissions_tenant ON submissions (tenant_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions (status, created_at);

			CREATE TABLE IF NOT EXISTS node_outputs (
				tenant_id VARCHAR(255) NOT NULL,
				workflow_id UUID NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				output TEXT NOT NULL DEFAULT '',
				content_hash VARCHAR(64) NOT NULL DEFAULT '',
				dependency_hashes JSONB NOT NULL DEFAULT '{}',
				version INTEGER NOT NULL DEFAULT 1,
				evaluation JSONB,
				low_quality_fields JSONB,
				executed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (tenant_id, workflow_id, node_id)
			);

			CREATE TABLE IF NOT EXISTS alerts (
				id UUID PRIMARY KEY,
				dedup_key VARCHAR(1024) NOT NULL UNIQUE,
				alert_type VARCHAR(64) NOT NULL,
				scope JSONB NOT NULL DEFAULT '{}',
				severity VARCHAR(32) NOT NULL,
				title VARCHAR(512) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				context JSONB,
				occurrences INTEGER NOT NULL DEFAULT 1,
				first_seen_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				last_seen_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_alerts_last_seen ON alerts (last_seen_at DESC);

			CREATE TABLE IF NOT EXISTS pending_changes (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				domain VARCHAR(255) NOT NULL,
				level VARCHAR(255) NOT NULL DEFAULT '',
				path VARCHAR(1024) NOT NULL,
				value TEXT NOT NULL DEFAULT '',
				provenance JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(32) NOT NULL DEFAULT 'pending',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_pending_changes_tenant ON pending_changes (tenant_id, status, created_at);

			CREATE TABLE IF NOT EXISTS frameworks (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				schema TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS schema_domains (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL UNIQUE,
				levels JSONB NOT NULL DEFAULT '[]',
				description TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE IF NOT EXISTS schema_field_defs (
				id UUID PRIMARY KEY,
				domain VARCHAR(255) NOT NULL,
				level VARCHAR(255) NOT NULL DEFAULT '',
				path VARCHAR(1024) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				UNIQUE (domain, level, path)
			);

			CREATE TABLE IF NOT EXISTS schema_field_values (
				tenant_id VARCHAR(255) NOT NULL,
				domain VARCHAR(255) NOT NULL,
				level VARCHAR(255) NOT NULL DEFAULT '',
				path VARCHAR(1024) NOT NULL,
				value TEXT NOT NULL DEFAULT '',
				version INTEGER NOT NULL DEFAULT 1,
				source VARCHAR(512) NOT NULL DEFAULT '',
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (tenant_id, domain, level, path)
			);

			CREATE TABLE IF NOT EXISTS schema_field_value_history (
				tenant_id VARCHAR(255) NOT NULL,
				domain VARCHAR(255) NOT NULL,
				level VARCHAR(255) NOT NULL DEFAULT '',
				path VARCHAR(1024) NOT NULL,
				value TEXT NOT NULL DEFAULT '',
				version INTEGER NOT NULL,
				source VARCHAR(512) NOT NULL DEFAULT '',
				archived_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (tenant_id, domain, level, path, version)
			);

			CREATE TABLE IF NOT EXISTS evaluations (
				id BIGSERIAL PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				workflow_id UUID NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				record JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_evaluations_node ON evaluations (tenant_id, workflow_id, node_id, created_at);
		`,
	}
}
