// Package manifest loads service declarations from YAML.
//
// A declaration is turned into a service definition in three steps:
//
//   - Includes are loaded from the includes directory and deep merged in
//     order, the declaration itself last
//   - ${var} placeholders are interpolated from the loader's vars, the
//     declaration's own vars and ${name}
//   - The merged document is decoded strictly and fed to the service builder
//
// # Declaration Structure
//
//	apiVersion: berth.io/v1
//	kind: Service
//	name: api
//	includes: [node-service]
//	env:
//	  LOG_LEVEL: info
//	  API_KEY_ID: {dev: abc, prod: null}
//	  WEB_URL: {ref: web}
//	secrets:
//	  TOKEN: /k8s/${name}/TOKEN
//
// # Includes
//
// Includes are reusable fragments with kind Include:
//
//	kind: Include
//	includes: [base]
//	command: [node]
package manifest
