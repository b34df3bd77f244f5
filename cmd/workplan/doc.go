// Command workplan runs bulk work plan generation, inspects the reference
// vocabulary and seeds the database from the command line. It reads the
// same environment configuration as the HTTP server.
package main
