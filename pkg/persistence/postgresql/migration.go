package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				owner VARCHAR(255),
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
		`,
		2: `
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);
			CREATE INDEX idx_workflows_owner ON workflows(owner);
		`,
	}
}
