// Package core holds the processing-session description shared by every
// processor in this module together with small numeric helpers.
package core
