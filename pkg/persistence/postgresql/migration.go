package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE areas (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT true,
				trigger_service VARCHAR(255) NOT NULL,
				trigger_action VARCHAR(255) NOT NULL,
				trigger_config JSONB DEFAULT '{}',
				reaction_service VARCHAR(255),
				reaction_action VARCHAR(255),
				reaction_config JSONB DEFAULT '{}',
				steps JSONB DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_areas_user_id ON areas(user_id);
			CREATE INDEX idx_areas_enabled ON areas(enabled);
			CREATE INDEX idx_areas_trigger_service ON areas(trigger_service);

			CREATE TABLE execution_logs (
				id VARCHAR(255) PRIMARY KEY,
				area_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('started', 'success', 'failed')),
				steps_executed INT NOT NULL DEFAULT 0,
				error_message TEXT,
				step_details JSONB DEFAULT '{}',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_execution_logs_area_id ON execution_logs(area_id);
			CREATE INDEX idx_execution_logs_status ON execution_logs(status);
			CREATE INDEX idx_execution_logs_started_at ON execution_logs(started_at);
		`,
	}
}
