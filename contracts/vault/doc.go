/*
Package vault implements Vault contract which custodies NEP-17 tokens, one
vault per token contract (mint).

A vault is created once per mint by CreateVault. Vault identity is derived
from the mint and the address of the Vault contract, so anyone can compute it
without reading the contract storage (see DeriveVault). Tokens of all vaults
are held by the Vault contract itself, vault of a mint owns the contract
balance in that mint.

Deposit moves user tokens into the vault. The contract does not change any
balance itself, it checks the vault linkage and asks the mint contract to make
a transfer authorized by the user witness. Tokens sent to the contract outside
of Deposit are rejected. There is no way to withdraw deposited tokens.

Every failure panics with a message starting with one of the codes from
vaultconst package, see rpc/vault for their off-chain counterparts.

# Contract notifications

VaultCreated notification. This notification is produced when a new vault is
created.

	VaultCreated:
	  - name: vault
	    type: Hash160
	  - name: mint
	    type: Hash160
	  - name: authority
	    type: Hash160
	  - name: nonce
	    type: Integer

Deposit notification. This notification is produced when tokens are moved into
the vault.

	Deposit:
	  - name: vault
	    type: Hash160
	  - name: mint
	    type: Hash160
	  - name: user
	    type: Hash160
	  - name: amount
	    type: Integer
*/
package vault
