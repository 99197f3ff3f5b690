/*
Package migration provides framework to test migration of the Vault smart
contract.

The contract holds records of vaults whose funds are kept by the token
contracts. Updates are done on the fly, so data migration must be performed
accurately, without losing access to any vault. The package provides services
of Neo blockchain and the contract needed for testing. Test blockchain
environment is based on the dumps of the remote blockchain instances (see
package dump).
*/
package migration
