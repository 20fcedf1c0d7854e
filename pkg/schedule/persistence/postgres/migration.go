package postgres

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE schedules (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				schedule_type VARCHAR(20) NOT NULL,
				timezone VARCHAR(64) NOT NULL DEFAULT '',
				interval_value INTEGER NOT NULL DEFAULT 0,
				interval_unit VARCHAR(20) NOT NULL DEFAULT '',
				hour INTEGER NOT NULL DEFAULT 0,
				minute INTEGER NOT NULL DEFAULT 0,
				days_of_week INTEGER[] NOT NULL DEFAULT '{}',
				day_of_month INTEGER NOT NULL DEFAULT 0,
				cron_expression VARCHAR(255) NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT TRUE,
				next_run_at TIMESTAMP WITH TIME ZONE,
				last_run_at TIMESTAMP WITH TIME ZONE,
				start_date TIMESTAMP WITH TIME ZONE,
				end_date TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (workflow_id, node_id)
			);
		`,
		2: `
			CREATE INDEX idx_schedules_enabled_next_run ON schedules(next_run_at) WHERE enabled;
		`,
	}
}
