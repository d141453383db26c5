package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_definitions (
				id VARCHAR(255) NOT NULL,
				version INTEGER NOT NULL,
				name VARCHAR(255) NOT NULL,
				body JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (id, version)
			);

			CREATE TABLE workflow_states (
				id VARCHAR(255) PRIMARY KEY,
				definition_id VARCHAR(255) NOT NULL,
				definition_version INTEGER NOT NULL,
				correlation_id VARCHAR(255),
				status VARCHAR(50) NOT NULL,
				version BIGINT NOT NULL,
				body JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_states_definition ON workflow_states(definition_id);
			CREATE INDEX idx_workflow_states_status ON workflow_states(status);
		`,
		2: `
			CREATE TABLE event_records (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				is_start_event BOOLEAN NOT NULL DEFAULT FALSE,
				correlation_id VARCHAR(255),
				kind VARCHAR(50) NOT NULL,
				is_completed BOOLEAN NOT NULL DEFAULT FALSE,
				last_call TIMESTAMP WITH TIME ZONE,
				due_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_event_records_workflow ON event_records(workflow_id);
			CREATE INDEX idx_event_records_open_correlation ON event_records(correlation_id) WHERE NOT is_completed;
			CREATE INDEX idx_event_records_open_timers ON event_records(due_at) WHERE NOT is_completed AND kind = 'timer';
		`,
	}
}
