/*
Package config loads replacement job files and turns them into workflow
configurations.

	            +-------------+
	            |   JobFile   |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+  +----+----+  +----+----+
	|   YAML   |  |   HCL   |  |  JSON   |
	+----------+  +---------+  +---------+

🎯 Purpose:
- Parses job files in YAML, HCL or JSON, picked by extension
- Fills defaults for everything a job file leaves out
- Reads the pull request token from the environment, never from files

🔄 Flow:
1. LoadEnv reads optional .env files and the GITHUB_TOKEN variable
2. Load parses a job file through the registered parsers
3. JobFile.Workflow converts it into a workflow.Config

🔍 Example job file (YAML):

	directory: ./service
	search:
	  pattern: 'version: \d+\.\d+\.\d+'
	  replacement: 'version: 2.0.0'
	  regex: true
	filter:
	  extensions: [".yaml", ".yml"]
	git:
	  commit_message: bump version
	pull_request:
	  title: Bump version to 2.0.0

The same job in HCL:

	directory = "./service"
	search {
	  pattern     = "version: \\d+\\.\\d+\\.\\d+"
	  replacement = "version: 2.0.0"
	  regex       = true
	}
*/
package config
