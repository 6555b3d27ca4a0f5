package main

// geocoder resolves client street addresses to map coordinates through a
// cascade of external lookup services, persisting results and manual
// corrections in PostgreSQL.
func main() {
	Execute()
}
