package txbuilder

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// createIdempotentATAInstruction builds the SPL Associated Token Account
// program's CreateIdempotent instruction (discriminant 1): create owner's
// associated token account for mint if it does not already exist, paid for
// by payer, succeeding as a no-op if it does. spec.md §4.3 requires every
// account-creation step in the instruction sequence to be idempotent so a
// retried Confirm never fails merely because a prior attempt already
// created the account.
func createIdempotentATAInstruction(payer, owner, mint solana.PublicKey) solana.Instruction {
	ata, _, _ := solana.FindAssociatedTokenAddress(owner, mint)

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(ata, true, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}

	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		accounts,
		[]byte{1}, // CreateIdempotent
	)
}

// mintToInstruction builds the SPL Token program's MintTo instruction
// (discriminant 7): mint rawAmount of mint's tokens into destination's
// token account, authorized by authority.
func mintToInstruction(mint, destination, authority solana.PublicKey, rawAmount uint64) solana.Instruction {
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(mint, true, false),
		solana.NewAccountMeta(destination, true, false),
		solana.NewAccountMeta(authority, false, true),
	}

	data := make([]byte, 9)
	data[0] = 7 // MintTo
	binary.LittleEndian.PutUint64(data[1:], rawAmount)

	return solana.NewInstruction(solana.TokenProgramID, accounts, data)
}

// associatedTokenAddress derives the associated token account of owner for
// mint; Build uses it for each mint instruction's destination account.
func associatedTokenAddress(owner, mint solana.PublicKey) solana.PublicKey {
	ata, _, _ := solana.FindAssociatedTokenAddress(owner, mint)
	return ata
}
