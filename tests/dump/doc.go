/*
Package dump provides I/O operations for collected states of the Vault smart
contract and the token contracts it holds balances in.

Vault records live in the Vault contract storage while the vaulted funds live
in the storages of the mint contracts, so a dump consists of the Vault
contract and every non-native mint referenced by its records. Such a dump
allows to emulate work with a "live" vault: first of all, it is used to test
contract updates against real data.

Dumps are stored in the file system using human-readable encoding, see
Creator for the format.
*/
package dump
